package schemast_test

import (
	"strings"
	"testing"
	"time"

	schemast "github.com/reoring/schemast"
	"github.com/reoring/schemast/loader"
)

func TestDecodeConfig_Apply(t *testing.T) {
	cfg, err := schemast.DecodeConfig(strings.NewReader(`
target: go
goPackage: pets
unreachableDefinitions: true
httpTimeout: 5s
httpHeaders:
  Authorization: Bearer x
`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.HTTPTimeout)
	}
	opts := schemast.Options{UnknownAny: true}
	if err := cfg.Apply(&opts); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if opts.Target != schemast.TargetGo || opts.GoPackage != "pets" || !opts.UnreachableDefinitions || !opts.UnknownAny {
		t.Fatalf("unexpected options: %+v", opts)
	}
	mux, ok := opts.Loader.(loader.Mux)
	if !ok {
		t.Fatalf("expected a Mux loader, got %T", opts.Loader)
	}
	h, ok := mux.HTTP.(*loader.HTTPLoader)
	if !ok || h.Timeout != 5*time.Second || h.Header.Get("Authorization") != "Bearer x" {
		t.Fatalf("unexpected HTTP loader: %+v", mux.HTTP)
	}
}

func TestDecodeConfig_Strict(t *testing.T) {
	if _, err := schemast.DecodeConfig(strings.NewReader("targett: go\n")); err == nil {
		t.Fatalf("expected an error for an unknown key")
	}
	if _, err := schemast.DecodeConfig(strings.NewReader("target: cobol\n")); err == nil {
		t.Fatalf("expected an error for an unknown target")
	}
	cfg, err := schemast.DecodeConfig(strings.NewReader(""))
	if err != nil || cfg.Target != "" {
		t.Fatalf("empty config = %+v, %v", cfg, err)
	}
}
