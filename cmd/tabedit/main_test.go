package main

import (
	"testing"
)

func TestArgv0Alias(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{name: "tabedit-store", base: "tabedit-store", want: "store-mock"},
		{name: "store-mock", base: "store-mock", want: "store-mock"},
		{name: "tabedit", base: "tabedit", want: ""},
	}
	for _, tc := range tests {
		if got := argv0Alias(tc.base); got != tc.want {
			t.Fatalf("%s: argv0Alias(%q) = %q, want %q", tc.name, tc.base, got, tc.want)
		}
	}
}

func TestApplyArgv0Alias(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "empty", args: nil, want: nil},
		{name: "no-alias", args: []string{"tabedit", "edit"}, want: []string{"tabedit", "edit"}},
		{name: "store", args: []string{"/usr/bin/tabedit-store", "--serve"}, want: []string{"/usr/bin/tabedit-store", "store-mock", "--serve"}},
	}
	for _, tc := range tests {
		got := applyArgv0Alias(tc.args)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: applyArgv0Alias length = %d, want %d", tc.name, len(got), len(tc.want))
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: applyArgv0Alias[%d] = %q, want %q", tc.name, i, got[i], tc.want[i])
			}
		}
	}
}

func TestIsStoreMockInvocation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "store-mock", args: []string{"tabedit", "store-mock"}, want: true},
		{name: "edit", args: []string{"tabedit", "edit"}, want: false},
		{name: "empty", args: nil, want: false},
	}
	for _, tc := range tests {
		if got := isStoreMockInvocation(tc.args); got != tc.want {
			t.Fatalf("%s: isStoreMockInvocation(%v) = %v, want %v", tc.name, tc.args, got, tc.want)
		}
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"edit", "store-mock", "config", "bootstrap", "doctor", "version"} {
		if !names[want] {
			t.Fatalf("expected root command to include %s", want)
		}
	}
}
