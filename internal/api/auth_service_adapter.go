package api

import "github.com/Shioencaja/observation-tracker/internal/services"

type authStoreAdapter struct {
	store Store
}

func newAuthStoreAdapter(store Store) services.AuthStore {
	return &authStoreAdapter{store: store}
}

func (a *authStoreAdapter) FindUserByEmail(email string) (*services.User, error) {
	return a.store.FindUserByEmail(email), nil
}

func (a *authStoreAdapter) AddUser(u *services.User) error {
	if u == nil {
		return services.NewInvalidError("user required")
	}
	a.store.AddUser(u)
	return nil
}

func (a *authStoreAdapter) AddOrganization(o *services.Organization) error {
	if o == nil {
		return services.NewInvalidError("organization required")
	}
	a.store.AddOrganization(o)
	return nil
}

var _ services.AuthStore = (*authStoreAdapter)(nil)
