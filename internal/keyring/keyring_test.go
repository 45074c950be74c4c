package keyring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/stretchr/testify/require"
)

func testCert(id ident.ID, notBefore time.Time, subjects ...string) *Cert {
	names := make([]SubjectName, len(subjects))
	for i, s := range subjects {
		names[i] = SubjectName(s)
	}
	return &Cert{
		Info: CertInfo{
			ID:        id,
			Subjects:  names,
			NotBefore: notBefore,
			NotAfter:  notBefore.Add(90 * 24 * time.Hour),
			Issuer:    "test-ca",
		},
		ChainPEM: []byte("chain-" + id),
		KeyPEM:   []byte("SECRET-KEY-" + id),
	}
}

func TestFindBySubjectLongestMatchWins(t *testing.T) {
	k := New()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	certA := testCert("certAAAAAAAAAAAAAAAAAAAA", t1, "*.example.com")
	certB := testCert("certBBBBBBBBBBBBBBBBBBBB", t2, "a.example.com")
	require.True(t, k.Add(certA))
	require.True(t, k.Add(certB))

	got, ok := k.FindBySubject("a.example.com")
	require.True(t, ok)
	require.Equal(t, certB.Info.ID, got.Info.ID, "exact match must beat wildcard")

	got, ok = k.FindBySubject("b.example.com")
	require.True(t, ok)
	require.Equal(t, certA.Info.ID, got.Info.ID, "only the wildcard cert covers b.example.com")

	_, ok = k.FindBySubject("example.com")
	require.False(t, ok, "wildcard must not match the bare parent domain")
}

func TestFindBySubjectTieBreaksByNotBefore(t *testing.T) {
	k := New()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	older := testCert("aaaaaaaaaaaaaaaaaaaaaaaa", t1, "dup.example.com")
	newer := testCert("zzzzzzzzzzzzzzzzzzzzzzzz", t2, "dup.example.com")
	require.True(t, k.Add(older))
	require.True(t, k.Add(newer))

	got, ok := k.FindBySubject("dup.example.com")
	require.True(t, ok)
	require.Equal(t, newer.Info.ID, got.Info.ID, "later not-before wins the tie")
}

func TestAddIsIdempotentByID(t *testing.T) {
	k := New()
	cert := testCert("idempotentcert0000000000", time.Now(), "example.com")

	require.True(t, k.Add(cert))
	changed := k.Add(cert) // identical bytes, same id
	require.False(t, changed, "re-adding identical cert bytes must be a no-op")
	require.Len(t, k.List(), 1)
}

func TestDeleteIsNoopIfAbsent(t *testing.T) {
	k := New()
	require.False(t, k.Delete("doesnotexist000000000000"))
}

func TestRoundTripAddListDelete(t *testing.T) {
	k := New()
	cert := testCert("roundtripcert00000000000", time.Now(), "example.com")
	require.True(t, k.Add(cert))

	list := k.List()
	require.Len(t, list, 1)
	require.Equal(t, cert.Info, list[0])

	require.True(t, k.Delete(cert.Info.ID))
	require.Empty(t, k.List())
}

func TestCertInfoNeverLeaksPrivateKeyBytes(t *testing.T) {
	k := New()
	cert := testCert("nopkleakcert000000000000", time.Now(), "example.com")
	require.True(t, k.Add(cert))

	for _, info := range k.List() {
		encoded, err := json.Marshal(info)
		require.NoError(t, err)
		require.NotContains(t, string(encoded), "SECRET-KEY")
	}
}

func TestAcmeEntryUniqueAccountPerDirectory(t *testing.T) {
	k := New()
	a := &AcmeEntry{ID: "acmeentryaaaaaaaaaaaaaaa", DirectoryURL: "https://acme.example/dir", Contacts: []string{"ops@example.com"}}
	b := &AcmeEntry{ID: "acmeentrybbbbbbbbbbbbbbb", DirectoryURL: "https://acme.example/dir", Contacts: []string{"ops@example.com"}}

	require.NoError(t, k.AddAcme(a))
	err := k.AddAcme(b)
	require.Error(t, err)
}
