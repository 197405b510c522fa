package domain

// BootstrapData describes the first client created on an empty store.
type BootstrapData struct {
	ClientName   string
	RedirectURIs []string
}
