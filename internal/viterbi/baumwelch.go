package viterbi

import "github.com/ihh/dnastore/internal/mutator"

// BaumWelchResult reports the fitted parameters and the trajectory of
// the EM objective, for callers that want to log or plot convergence.
type BaumWelchResult struct {
	Params     mutator.Params
	LogLik     []float64
	Iterations int
	Converged  bool
}

// BaumWelch refits a mutator.Params from a database of guide
// alignments by EM: each iteration computes ExpectedCounts over every
// pair under the current Params (E-step), sums them with a Laplace
// prior, and closes the form with MLParamsWithPrior (M-step). The
// objective recorded in LogLik is the summed log-likelihood of the pairs
// plus the prior's log density of the current Params. It stops when the
// fractional change in that objective falls below tol or after maxIter
// rounds.
func BaumWelch(pairs []TrainingPair, init mutator.Params, maxIter int, tol float64) BaumWelchResult {
	params := init
	prior := mutator.NewCounts(init).InitLaplace(1)
	res := BaumWelchResult{Params: params}

	prevLL := mutator.NegInf
	for iter := 0; iter < maxIter; iter++ {
		scores := mutator.NewScores(params)
		total := mutator.NewCounts(params)
		ll := 0.0
		for _, pair := range pairs {
			fm := NewForwardMatrix(pair, scores)
			ll += fm.LogLikelihood()
			total = total.Add(ExpectedCounts(pair, scores))
		}
		ll += prior.LogPrior(params)
		res.LogLik = append(res.LogLik, ll)
		res.Iterations = iter + 1

		params = total.MLParamsWithPrior(prior)
		res.Params = params

		if iter > 0 {
			improvement := fractionalImprovement(prevLL, ll)
			if improvement < tol {
				res.Converged = true
				break
			}
		}
		prevLL = ll
	}
	return res
}

// fractionalImprovement is |ll - prevLL| / |prevLL|, guarding the
// degenerate prevLL == 0 case.
func fractionalImprovement(prevLL, ll float64) float64 {
	if prevLL == mutator.NegInf {
		return 1
	}
	d := ll - prevLL
	if d < 0 {
		d = -d
	}
	denom := prevLL
	if denom < 0 {
		denom = -denom
	}
	if denom == 0 {
		return d
	}
	return d / denom
}
