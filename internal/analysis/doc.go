// Package analysis extracts physical quantities from a stored signal.
//
//   - [Spectrum]: power spectrum of the complex transverse signal Mx + iMy
//   - [DominantFrequency]: angular frequency of the strongest spectral line
//   - [DecayRate]: transverse relaxation rate from a log-linear fit
//
// Frequencies are angular, in radians per time unit, with the sign of the
// precession: a spin in a constant Bz > 0 field rotates at -Bz.
package analysis
