package remedy

import "testing"

const diffOriginal = `fn main() {
    let x: i32 = "five";
    println!("{}", x);
}`

const diffReply = `--- a/src/main.rs
+++ b/src/main.rs
@@ -1,4 +1,4 @@
 fn main() {
-    let x: i32 = "five";
+    let x: i32 = 5;
     println!("{}", x);
 }
`

func TestApplyUnifiedDiff(t *testing.T) {
	got, ok := applyUnifiedDiff(diffOriginal, diffReply)
	if !ok {
		t.Fatal("diff did not apply")
	}
	want := `fn main() {
    let x: i32 = 5;
    println!("{}", x);
}`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApplyUnifiedDiffContextMismatch(t *testing.T) {
	// Original drifted since the diff was produced.
	if _, ok := applyUnifiedDiff("completely different content", diffReply); ok {
		t.Error("mismatched context must not apply")
	}
}

func TestApplyUnifiedDiffGarbage(t *testing.T) {
	if _, ok := applyUnifiedDiff(diffOriginal, "not a diff at all"); ok {
		t.Error("garbage must not apply")
	}
}

func TestLooksLikeUnifiedDiff(t *testing.T) {
	if !looksLikeUnifiedDiff(diffReply) {
		t.Error("real diff not recognized")
	}
	if looksLikeUnifiedDiff("fn main() {}") {
		t.Error("plain code misrecognized as diff")
	}
}
