package providers

// CallObserver counts finished outbound provider calls.
type CallObserver interface {
	ObserveProviderCall(provider, outcome string)
}

// Observe records one finished call against the observer. The outcome is
// "ok" for nil errors, otherwise the normalized kind; errors outside the
// taxonomy count as network failures.
func Observe(o CallObserver, provider string, err error) {
	if o == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(KindNetwork)
		if kind := KindOf(err); kind != "" {
			outcome = string(kind)
		}
	}
	o.ObserveProviderCall(provider, outcome)
}
