// Package security inspects the TLS certificate of the trends provider
// endpoint so that an expiring or untrusted certificate is reported at
// startup instead of surfacing as a failed cycle on the day it lapses.
package security
