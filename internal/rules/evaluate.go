package rules

// Facts is the player snapshot rules are evaluated against
type Facts struct {
	Level int
	Coins int64
}

// Failure describes why a rule tree did not pass. Reason is always set.
type Failure struct {
	Reason  string
	Details map[string]any
}

// Result of evaluating a rule tree. Ignored lists unknown leaf types that
// were treated as passing.
type Result struct {
	Passed  bool
	Failure Failure
	Ignored []string
}

// Evaluate runs rule against facts
func Evaluate(facts Facts, rule *Rule) Result {
	var ignored []string
	ok, f := eval(facts, rule, &ignored)
	return Result{Passed: ok, Failure: f, Ignored: ignored}
}

func eval(facts Facts, r *Rule, ignored *[]string) (bool, Failure) {
	if r == nil {
		return true, Failure{}
	}
	switch r.Op {
	case OpAll:
		for _, c := range r.Children {
			if ok, f := eval(facts, c, ignored); !ok {
				return false, f
			}
		}
		return true, Failure{}
	case OpAny:
		last := Failure{}
		for _, c := range r.Children {
			ok, f := eval(facts, c, ignored)
			if ok {
				return true, Failure{}
			}
			last = f
		}
		if last.Reason == "" {
			last = Failure{Reason: "no_variant_matches"}
		}
		return false, last
	case OpLeaf:
		return leaf(facts, r, ignored)
	}
	return true, Failure{}
}

func leaf(facts Facts, r *Rule, ignored *[]string) (bool, Failure) {
	switch r.Type {
	case LevelAtLeast:
		if int64(facts.Level) >= r.Value {
			return true, Failure{}
		}
		return false, Failure{Reason: "level_too_low", Details: map[string]any{
			"required":      r.Value,
			"current_level": facts.Level,
		}}
	case CoinsAtLeast:
		if facts.Coins >= r.Value {
			return true, Failure{}
		}
		return false, Failure{Reason: "not_enough_coins", Details: map[string]any{
			"required":      r.Value,
			"current_coins": facts.Coins,
		}}
	}
	*ignored = append(*ignored, r.Type)
	return true, Failure{}
}
