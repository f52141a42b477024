package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/magpie/pkg/policy"
)

func writePolicy(t *testing.T, body string) string {
	tmpDir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ingest.rego"), []byte(body), 0644))
	return tmpDir
}

func TestGateSkip(t *testing.T) {
	ctx := context.Background()
	dir := writePolicy(t, `package ingest

skip := true if {
	input.length < 10
}

reason := "document too short" if {
	input.length < 10
}
`)

	gate, err := policy.New(ctx, dir)
	gt.NoError(t, err)

	decision, err := gate.Evaluate(ctx, &policy.Input{Text: "tiny", Length: 4})
	gt.NoError(t, err)
	gt.Equal(t, decision.Skip, true)
	gt.Equal(t, decision.Reason, "document too short")

	decision, err = gate.Evaluate(ctx, &policy.Input{Text: "long enough document", Length: 20})
	gt.NoError(t, err)
	gt.Equal(t, decision.Skip, false)
	gt.Equal(t, decision.Reason, "")
}

func TestGateWithoutPolicyAcceptsEverything(t *testing.T) {
	ctx := context.Background()

	// No directory configured
	gate, err := policy.New(ctx, "")
	gt.NoError(t, err)
	decision, err := gate.Evaluate(ctx, &policy.Input{Text: "anything"})
	gt.NoError(t, err)
	gt.Equal(t, decision.Skip, false)

	// Directory exists but holds no policies
	gate, err = policy.New(ctx, t.TempDir())
	gt.NoError(t, err)
	decision, err = gate.Evaluate(ctx, &policy.Input{Text: "anything"})
	gt.NoError(t, err)
	gt.Equal(t, decision.Skip, false)
}

func TestGateRejectsBrokenPolicy(t *testing.T) {
	dir := writePolicy(t, `package ingest

skip := {
`)
	_, err := policy.New(context.Background(), dir)
	gt.Error(t, err)
}
