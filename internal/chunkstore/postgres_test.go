package chunkstore

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnString_CredentialsSurviveEncoding(t *testing.T) {
	dsn := connString(Config{
		Host:     "db.internal",
		Port:     5432,
		Database: "raglab",
		User:     "rag lab",
		Password: "p@ss word/100%",
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/raglab", u.Path)
	assert.Equal(t, "rag lab", u.User.Username())
	password, set := u.User.Password()
	require.True(t, set)
	assert.Equal(t, "p@ss word/100%", password)
}
