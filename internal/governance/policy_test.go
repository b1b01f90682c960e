package governance

import (
	"context"
	"strings"
	"testing"
)

func TestPolicyEngine_AllowsByDefault(t *testing.T) {
	engine := NewDefaultPolicyEngine()

	res, err := engine.Evaluate(context.Background(), Request{Tool: "flight_search"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Effect != EffectAllow {
		t.Errorf("expected allow, got %s (%s)", res.Effect, res.Reason)
	}
}

func TestPolicyEngine_DenyTool(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	engine.DenyTool("destination_info")

	res, err := engine.Evaluate(context.Background(), Request{Tool: "destination_info"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Effect != EffectDeny {
		t.Errorf("expected deny, got %s", res.Effect)
	}
	if !strings.Contains(res.Reason, "destination_info") {
		t.Errorf("reason should name the rule: %q", res.Reason)
	}

	// Other tools stay unaffected.
	res, _ = engine.Evaluate(context.Background(), Request{Tool: "flight_search"})
	if res.Effect != EffectAllow {
		t.Errorf("unrelated tool denied: %s", res.Reason)
	}
}

func TestPolicyEngine_DenyArguments(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	if err := engine.DenyArguments(`(?i)credit\s*card`); err != nil {
		t.Fatalf("DenyArguments failed: %v", err)
	}

	res, err := engine.Evaluate(context.Background(), Request{
		Tool:      "destination_info",
		Arguments: `{"query":"store my Credit Card number"}`,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Effect != EffectDeny {
		t.Errorf("expected deny, got %s", res.Effect)
	}

	res, _ = engine.Evaluate(context.Background(), Request{
		Tool:      "destination_info",
		Arguments: `{"query":"best time to visit Kyoto"}`,
	})
	if res.Effect != EffectAllow {
		t.Errorf("benign arguments denied: %s", res.Reason)
	}
}

func TestPolicyEngine_DenyToolArguments(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	if err := engine.DenyToolArguments("itinerary_format", `(?i)passport`); err != nil {
		t.Fatalf("DenyToolArguments failed: %v", err)
	}

	res, _ := engine.Evaluate(context.Background(), Request{
		Tool:      "itinerary_format",
		Arguments: `{"notes":"passport number 12345"}`,
	})
	if res.Effect != EffectDeny {
		t.Errorf("expected deny for scoped rule, got %s", res.Effect)
	}

	// Same arguments on a different tool pass.
	res, _ = engine.Evaluate(context.Background(), Request{
		Tool:      "destination_info",
		Arguments: `{"query":"passport requirements for Japan"}`,
	})
	if res.Effect != EffectAllow {
		t.Errorf("scoped rule leaked to other tools: %s", res.Reason)
	}
}

func TestPolicyEngine_InvalidPattern(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	if err := engine.DenyArguments(`(`); err == nil {
		t.Error("expected error for invalid regex")
	}
	if err := engine.DenyToolArguments("flight_search", `[`); err == nil {
		t.Error("expected error for invalid regex")
	}
}
