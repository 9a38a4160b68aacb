package auth

// TokenStore defines the interface for token storage operations
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(origin, token string) error
	LoadToken(origin string) (string, error)
	DeleteToken(origin string) error
}

// defaultTokenStore implements TokenStore using the OS keyring
type defaultTokenStore struct{}

var Default TokenStore = &defaultTokenStore{}

func (d *defaultTokenStore) SaveToken(origin, token string) error {
	return SaveToken(origin, token)
}

func (d *defaultTokenStore) LoadToken(origin string) (string, error) {
	return LoadToken(origin)
}

func (d *defaultTokenStore) DeleteToken(origin string) error {
	return DeleteToken(origin)
}
