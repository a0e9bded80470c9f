// Package secrets redacts credentials from engram text before it is
// written into an exportable pack.
//
// A regexp rule set runs first. When Config.Detector is set, the gitleaks
// default rule set runs over the result as a second pass.
package secrets
