// internal/rating/glicko2.go
package rating

import "math"

const (
	// GlickoScale is the multiplier used for converting between the public scale and Glicko2's mu.
	GlickoScale = 173.7178
	// DefaultRating is the baseline rating (1500).
	DefaultRating = 1500.0
	// DefaultDeviation is the baseline rating deviation (350).
	DefaultDeviation = 350.0
	// DefaultVolatility is the baseline volatility.
	DefaultVolatility = 0.06
	// Tau is the constraint on volatility changes.
	Tau = 0.5
	// Epsilon is the tolerance used in iteration stopping conditions.
	Epsilon = 0.000001
)

// Rating is a player's per-game rating on the public 1500-based scale.
type Rating struct {
	Rating     float64 `json:"rating"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
}

// Default is the rating of a player with no rated games.
func Default() Rating {
	return Rating{Rating: DefaultRating, Deviation: DefaultDeviation, Volatility: DefaultVolatility}
}

// glicko is a rating transformed into Glicko2 space.
type glicko struct {
	mu    float64
	phi   float64
	sigma float64
}

func (r Rating) toGlicko() glicko {
	return glicko{
		mu:    (r.Rating - DefaultRating) / GlickoScale,
		phi:   r.Deviation / GlickoScale,
		sigma: r.Volatility,
	}
}

func (g glicko) toRating() Rating {
	return Rating{
		Rating:     g.mu*GlickoScale + DefaultRating,
		Deviation:  g.phi * GlickoScale,
		Volatility: g.sigma,
	}
}

// Update1v1 returns the new ratings of winner and loser after one decisive
// game. Both updates are computed from the pre-game ratings.
func Update1v1(winner, loser Rating) (Rating, Rating) {
	w, l := winner.toGlicko(), loser.toGlicko()
	return updateGlicko(w, l, 1).toRating(), updateGlicko(l, w, 0).toRating()
}

// updateGlicko performs a single-match Glicko2 update with volatility for a user r
// against an opponent opp, given the final score in [0..1].
func updateGlicko(r, opp glicko, score float64) glicko {
	gVal := g(opp.phi)
	EVal := E(r.mu, opp.mu, opp.phi)

	v := 1.0 / (gVal * gVal * EVal * (1 - EVal))
	delta := v * gVal * (score - EVal)

	// Illinois iteration for the new volatility.
	a := math.Log(r.sigma * r.sigma)
	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for f(a-k*Tau, r.phi, v, delta, a) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := f(A, r.phi, v, delta, a), f(B, r.phi, v, delta, a)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C, r.phi, v, delta, a)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	newSigma := math.Exp(A / 2)
	phiStar := math.Sqrt(r.phi*r.phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muPrime := r.mu + phiPrime*phiPrime*gVal*(score-EVal)

	return glicko{mu: muPrime, phi: phiPrime, sigma: newSigma}
}

// g is the G(phi) factor from Glicko2, applying the standard formula 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

// E is the expected score formula in Glicko2 space, E(mu,mu2,phi2)=1/(1+exp[-g(phi2)*(mu-mu2)])
func E(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the Glicko2 volatility root-finding function used in the iterative volatility update.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return (num / den) - ((x - a) / (Tau * Tau))
}
