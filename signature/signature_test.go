package signature

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brein.evalgo.org/brerr"
	"brein.evalgo.org/document"
)

func TestGenerateKnownVector(t *testing.T) {
	sig, err := Generate("apiKey", "secretkey")
	require.NoError(t, err)
	assert.Equal(t, "h5HRhGRwWlRs9pscyHhQWNc7pxnDOwDZBIAnnhEQbrU=", sig)
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate("login14510400001", "s3cr3t")
	require.NoError(t, err)
	b, err := Generate("login14510400001", "s3cr3t")
	require.NoError(t, err)
	c, err := Generate("login14510400011", "s3cr3t")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerateWithoutSecret(t *testing.T) {
	_, err := Generate("message", "")
	assert.ErrorIs(t, err, brerr.ErrSignature)
}

func TestActivityMessage(t *testing.T) {
	doc := document.Document{
		"unixTimestamp": int64(1451040000),
		"activity":      document.Document{"type": "login", "category": "services"},
	}
	assert.Equal(t, "login14510400001", ActivityMessage(doc))

	// missing type degrades to the empty string
	delete(doc["activity"].(document.Document), "type")
	assert.Equal(t, "14510400001", ActivityMessage(doc))
}

func TestLookupMessage(t *testing.T) {
	doc := document.Document{
		"unixTimestamp": int64(1000),
		"lookup":        document.Document{"dimensions": []string{"firstname", "gender", "age"}},
	}
	assert.Equal(t, "firstname10003", LookupMessage(doc))

	parsed := document.Document{
		"unixTimestamp": int64(1000),
		"lookup":        document.Document{"dimensions": []interface{}{"age"}},
	}
	assert.Equal(t, "age10001", LookupMessage(parsed))

	empty := document.Document{"unixTimestamp": int64(1000)}
	assert.Equal(t, "010000", LookupMessage(empty))
}

func TestTemporalDataMessage(t *testing.T) {
	doc := document.Document{
		"unixTimestamp": int64(42),
		"user": document.Document{
			"additional": document.Document{
				"localDateTime": "Sun Dec 25 2016 18:15:48 GMT-0800 (PST)",
				"timezone":      "America/Los_Angeles",
			},
		},
	}
	assert.Equal(t, "42-Sun Dec 25 2016 18:15:48 GMT-0800 (PST)-America/Los_Angeles", TemporalDataMessage(doc))
	assert.Equal(t, "42--", TemporalDataMessage(document.Document{"unixTimestamp": int64(42)}))
}

func TestRecommendationMessage(t *testing.T) {
	assert.Equal(t, "77", RecommendationMessage(document.Document{"unixTimestamp": int64(77)}))
}

type messengerFunc func(document.Document) string

func (f messengerFunc) SignatureMessage(doc document.Document) string { return f(doc) }

func TestSignAndVerify(t *testing.T) {
	doc := document.Document{
		"unixTimestamp": int64(1451040000),
		"activity":      document.Document{"type": "login"},
	}
	m := messengerFunc(ActivityMessage)

	require.NoError(t, Sign(doc, m, "s3cr3t"))
	assert.Equal(t, TypeHmacSHA256, doc[SignatureTypeKey])

	expected, err := Generate("login14510400001", "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, expected, doc[SignatureKey])

	assert.True(t, Verify(doc, m, "s3cr3t"))
	assert.False(t, Verify(doc, m, "other"))

	doc["unixTimestamp"] = int64(1451040001)
	assert.False(t, Verify(doc, m, "s3cr3t"))
}

func TestSignErrors(t *testing.T) {
	doc := document.Document{"unixTimestamp": int64(1)}
	assert.ErrorIs(t, Sign(doc, messengerFunc(RecommendationMessage), ""), brerr.ErrSignature)
	assert.NotContains(t, doc, SignatureKey)
	assert.ErrorIs(t, Sign(nil, messengerFunc(RecommendationMessage), "s"), brerr.ErrValidation)
}

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret(128)
	require.NoError(t, err)
	assert.Len(t, secret, 24)

	other, err := GenerateSecret(128)
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)

	for i := 0; i < 100; i++ {
		_, err := Generate(fmt.Sprintf("message-%d", i), secret)
		require.NoError(t, err)
	}

	_, err = GenerateSecret(7)
	assert.ErrorIs(t, err, brerr.ErrValidation)
}
