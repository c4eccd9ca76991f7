package config

import "time"

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewKeycloakForTest(issuer, clientID, clientSecret string) *Keycloak {
	return &Keycloak{
		issuer:       issuer,
		clientID:     clientID,
		clientSecret: clientSecret,
		timeout:      5 * time.Second,
	}
}

func NewNoAuthForTest(email, org, roles, token string) *Keycloak {
	return &Keycloak{
		noAuthEmail: email,
		noAuthOrg:   org,
		noAuthRoles: roles,
		noAuthToken: token,
	}
}

func NewBackendForTest(url string) *Backend {
	return &Backend{url: url, timeout: time.Second}
}

func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{backend: backend, projectID: projectID}
}
