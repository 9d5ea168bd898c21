package rules

// Catalog returns fresh values of every built-in rule, ordered by id.
func Catalog() []Rule {
	return []Rule{
		FireAndForgetSpawn(),
		LockPoisonOnPanic(),
		SilentBackgroundError(),
		UnboundedBlockingWait(),
		UnsafeReinterpret(),
		UnwrapPanic(),
	}
}

// Default builds the rule set from the full catalog.
func Default() (*RuleSet, error) {
	return NewRuleSet(Catalog()...)
}
