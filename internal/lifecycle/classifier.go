package lifecycle

import "strings"

// failureClass is the classifier's verdict: the single most-advanced stage
// that plausibly failed, and the stages before it on that path that must have
// completed for execution to reach it.
type failureClass struct {
	failed    StageKey
	completed []StageKey
}

// failureRules are checked in order; the first keyword hit wins. The keywords
// are substrings of the backend's Korean failure messages, so a reason
// matching several rules is resolved by check order, which may not reflect
// actual causality.
var failureRules = []struct {
	keywords []string
	class    failureClass
}{
	{
		keywords: []string{"현재가"}, // current price lookup
		class:    failureClass{failed: StagePriceCheck},
	},
	{
		keywords: []string{"수량", "예수금"}, // quantity / deposit shortfall
		class: failureClass{
			failed:    StageQuantityCalc,
			completed: []StageKey{StagePriceCheck},
		},
	},
	{
		keywords: []string{"주문"}, // order rejection
		class: failureClass{
			failed:    StageOrderPlaced,
			completed: []StageKey{StagePriceCheck, StageQuantityCalc},
		},
	},
}

// classifyFailure attributes a FAILED signal's free-text reason to a stage.
// An empty reason yields no verdict; a non-empty reason matching no keyword
// falls back to marking orderPlaced failed, without completing earlier
// stages, since nothing about the path can be inferred.
func classifyFailure(reason string) (failureClass, bool) {
	if reason == "" {
		return failureClass{}, false
	}
	for _, rule := range failureRules {
		for _, kw := range rule.keywords {
			if strings.Contains(reason, kw) {
				return rule.class, true
			}
		}
	}
	return failureClass{failed: StageOrderPlaced}, true
}
