package migrate

import (
	"context"
	"testing"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/config"
)

func TestAutorunOnlyInDevWithFlag(t *testing.T) {
	cases := []struct {
		env  string
		flag bool
		want bool
	}{
		{env: "dev", flag: true, want: true},
		{env: "dev", flag: false, want: false},
		{env: "prod", flag: true, want: false},
	}
	for _, tc := range cases {
		cfg := &config.Config{}
		cfg.App.Env = tc.env
		cfg.FeatureFlags.AutoMigrate = tc.flag
		if got := autorunEnabled(cfg); got != tc.want {
			t.Fatalf("env=%s flag=%v: expected %v, got %v", tc.env, tc.flag, tc.want, got)
		}
	}
	if autorunEnabled(nil) {
		t.Fatalf("nil config must not autorun")
	}
}

func TestMaybeRunDevSkipsWithoutTouchingDatabase(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "prod"
	cfg.FeatureFlags.AutoMigrate = true
	// a nil client would panic if it were used
	if err := MaybeRunDev(context.Background(), cfg, nil, nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
