package auth

import (
	"os"
	"strconv"
	"testing"
)

func TestNewExternalEncodesUID(t *testing.T) {
	e := NewExternal()
	if e.Name() != "EXTERNAL" {
		t.Errorf("Name() = %q, want EXTERNAL", e.Name())
	}

	want := string(encodeHex([]byte(strconv.Itoa(os.Getuid()))))
	if string(e.InitialResponse()) != want {
		t.Errorf("InitialResponse() = %q, want %q", e.InitialResponse(), want)
	}
}

func TestExternalContinueIgnoresChallenge(t *testing.T) {
	e := NewExternal()
	resp, err := e.Continue([]byte("unexpected challenge"))
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if len(resp) != 0 {
		t.Errorf("Continue() = %q, want empty", resp)
	}
}

func TestItoa(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{123, "123"},
		{-45, "-45"},
	}
	for _, tc := range tests {
		if got := itoa(tc.n); got != tc.want {
			t.Errorf("itoa(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}
