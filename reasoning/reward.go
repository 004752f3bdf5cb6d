package reasoning

// RewardWeights shapes the episode reward
type RewardWeights struct {
	AnswerLength float64
	ContextUse   float64
	Efficiency   float64
	StepPenalty  float64
	Confidence   float64
}

// DefaultRewardWeights returns the default shaping weights
func DefaultRewardWeights() RewardWeights {
	return RewardWeights{
		AnswerLength: 0.2,
		ContextUse:   0.3,
		Efficiency:   0.2,
		StepPenalty:  0.1,
		Confidence:   0.2,
	}
}

// answer lengths inside this band earn the full length bonus
const (
	answerLengthMin = 40
	answerLengthMax = 2000
)

// computeReward scores a finished episode: a weighted sum of an
// answer-length-in-band bonus, context utilization, a visited-nodes per step
// efficiency term, a penalty for exceeding the step cap and a confidence
// bonus, clipped to [0,1].
//
// The efficiency term is deliberately not normalized by graph size, so the
// absolute reward scale varies by corpus.
func computeReward(answer string, state *State, maxSteps int, w RewardWeights) float64 {
	var reward float64

	if len(answer) >= answerLengthMin && len(answer) <= answerLengthMax {
		reward += w.AnswerLength
	} else if len(answer) > 0 {
		reward += w.AnswerLength * 0.3
	}

	if len(state.Fragments) > 0 {
		use := float64(len(state.Fragments)) / 10.0
		if use > 1 {
			use = 1
		}
		reward += w.ContextUse * use
	}

	if state.Step > 0 {
		reward += w.Efficiency * (float64(len(state.Visited)) / float64(state.Step))
	}

	if state.Step > maxSteps {
		reward -= w.StepPenalty * float64(state.Step-maxSteps)
	}

	reward += w.Confidence * state.Confidence

	if reward < 0 {
		return 0
	}
	if reward > 1 {
		return 1
	}
	return reward
}
