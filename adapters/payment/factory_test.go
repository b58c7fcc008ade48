package payment

import "testing"

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{"stripe", Config{Mode: "stripe", SecretKey: "sk_test", WebhookSecret: "whsec"}, "stripe", false},
		{"stripe missing secret key", Config{Mode: "stripe", WebhookSecret: "whsec"}, "", true},
		{"stripe missing webhook secret", Config{Mode: "stripe", SecretKey: "sk_test"}, "", true},
		{"dummy", Config{Mode: "dummy", WebhookSecret: "dev"}, "dummy", false},
		{"test alias", Config{Mode: "test", WebhookSecret: "dev"}, "dummy", false},
		{"dummy missing secret", Config{Mode: "dummy"}, "", true},
		{"none", Config{Mode: "none"}, "none", false},
		{"empty", Config{}, "none", false},
		{"unknown", Config{Mode: "paypal"}, "", true},
		{"case sensitive", Config{Mode: "Stripe", SecretKey: "sk_test", WebhookSecret: "whsec"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got provider %v", p)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider failed: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}
