package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/magpie/pkg/model"
)

func TestNormalizeText(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapse spaces", "a  b   c", "a b c"},
		{"collapse mixed whitespace", "a\tb\nc", "a b c"},
		{"trim edges", "  hello world  ", "hello world"},
		{"already normalized", "hello world", "hello world"},
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, model.NormalizeText(tc.input), tc.expected)
		})
	}
}

func TestFingerprintDeterminism(t *testing.T) {
	fp1 := model.NewFingerprint("quarterly review  notes")
	fp2 := model.NewFingerprint("quarterly review\nnotes")
	fp3 := model.NewFingerprint("  quarterly review notes  ")

	// Whitespace variants of the same content share one fingerprint
	gt.Equal(t, fp1, fp2)
	gt.Equal(t, fp1, fp3)

	other := model.NewFingerprint("different content")
	gt.V(t, fp1 == other).Equal(false)
}

func TestFingerprintIsHex(t *testing.T) {
	fp := model.NewFingerprint("some document text")
	gt.V(t, len(fp)).Equal(64)
	for _, c := range string(fp) {
		hex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		gt.V(t, hex).Equal(true)
	}
}

func TestDocumentIDFromFingerprint(t *testing.T) {
	fp := model.NewFingerprint("meeting notes")
	id := fp.DocumentID()

	gt.Equal(t, string(id), string(fp))
	gt.Equal(t, id, model.NewFingerprint("meeting  notes").DocumentID())
}
