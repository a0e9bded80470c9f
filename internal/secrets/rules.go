package secrets

func rule(id, desc, pattern string, keywords ...string) Rule {
	return Rule{ID: id, Description: desc, Pattern: pattern, Keywords: keywords}
}

// DefaultRules returns credential patterns likely to appear in a statement
// or rationale written during a coding session. Self-identifying prefixes
// carry no keywords; generic assignments require one.
func DefaultRules() []Rule {
	return []Rule{
		rule("aws-access-key-id", "AWS Access Key ID",
			`(?:A3T[A-Z0-9]|AKIA|ASIA|AROA|AIDA)[A-Z0-9]{16}`),
		rule("generic-api-key", "Generic API Key",
			`(?i)(?:api[_-]?key|apikey)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,64}['"]?`, "api", "key"),
		rule("generic-secret", "Password or secret assignment",
			`(?i)(?:secret|password|passwd|pwd)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`, "secret", "pass", "pwd"),
		rule("private-key", "Private key header",
			`-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?: BLOCK)?-----`),
		rule("github-token", "GitHub token",
			`(?:ghp|gho|ghu|ghs)_[A-Za-z0-9]{36}|github_pat_[A-Za-z0-9_]{22,}`),
		rule("gitlab-token", "GitLab personal access token",
			`glpat-[A-Za-z0-9\-]{20,}`),
		rule("slack-token", "Slack token",
			`xox[baprs]-[A-Za-z0-9\-]{10,}`),
		rule("stripe-key", "Stripe API key",
			`(?:sk|pk|rk)_(?:live|test)_[A-Za-z0-9]{24,}`),
		rule("anthropic-api-key", "Anthropic API key",
			`sk-ant-[A-Za-z0-9_\-]{32,}`),
		rule("openai-api-key", "OpenAI API key",
			`sk-(?:proj-)?[A-Za-z0-9]{40,}`),
		rule("database-url", "Connection URL with credentials",
			`(?i)(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqp)://[^:\s/]+:[^@\s]+@[^\s]+`),
		rule("jwt", "JSON Web Token",
			`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`),
		rule("bearer-token", "Bearer token",
			`(?i)bearer\s+[A-Za-z0-9_\-\.=]{20,}`, "bearer"),
	}
}
