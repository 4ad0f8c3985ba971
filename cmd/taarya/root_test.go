package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kailas-cloud/taarya/internal/domain/agent"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"serve"}, {"schema"}, {"ask"}, {"stats"},
		{"ingest", "catalog"}, {"ingest", "papers"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("missing command %v: %v", path, err)
		}
	}
}

func TestRootCmd_Version(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "commit") {
		t.Errorf("unexpected version output: %q", out.String())
	}
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ask"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestPrintAnswer(t *testing.T) {
	var out bytes.Buffer
	printAnswer(&out, agent.Answer{
		Answer:  "Found 2 stars.",
		Mode:    agent.ModeGenerative,
		TraceID: "t-1",
		ToolsUsed: []agent.ToolUse{
			{Tool: "cone_search", Input: `{"ra":45}`, OutputPreview: "Found 2 stars\nS1"},
		},
	})

	got := out.String()
	for _, want := range []string{"Found 2 stars.", "mode: generative", "trace: t-1", `1. cone_search {"ra":45}`, "-> Found 2 stars S1"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
