package session

// initial is the session of a freshly constructed engine.
func initial(hasCredential bool) Session {
	if hasCredential {
		return Session{Status: StatusRestoring}
	}

	return unauthenticated()
}

func authenticated(u User) Session {
	return Session{User: &u, Status: StatusAuthenticated}
}

func unauthenticated() Session {
	return Session{Status: StatusUnauthenticated}
}

// persist writes the credential before the user, so "credential present"
// is a valid pre-check before trusting a cached user.
func persist(store CredentialStore, c *Credential, u *User) {
	store.Set(c)
	store.SetUser(u)
}

// clearPersisted removes the credential and the user together.
func clearPersisted(store CredentialStore) {
	store.Set(nil)
	store.SetUser(nil)
}

func isPersisted(store CredentialStore) bool {
	return store.Get() != nil || store.GetUser() != nil
}
