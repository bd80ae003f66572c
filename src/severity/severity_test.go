package severity

import "testing"

func TestIsSevere(t *testing.T) {
	c := NewClassifier()

	cases := map[string]bool{
		"I have chest pain":                        true,
		"I HAVE CHEST PAIN AND I'M SCARED":         true,
		"my father had a Stroke last year, me now?": true,
		"experiencing difficulty breathing since noon": true,
		"could this be anaphylaxis":                true,
		"mild headache for two days":               false,
		"what helps with a sore throat":            false,
		"":                                         false,
		"my chest hurts a little after the gym":    false,
	}
	for query, want := range cases {
		if got := c.IsSevere(query); got != want {
			t.Errorf("IsSevere(%q) = %v, want %v", query, got, want)
		}
	}
}

func TestCustomKeywords(t *testing.T) {
	c := NewClassifier("Broken Bone")
	if !c.IsSevere("i think i have a broken bone") {
		t.Error("custom keyword should match case-insensitively")
	}
	if c.IsSevere("I have chest pain") {
		t.Error("default keywords should not apply when a custom list is given")
	}
}
