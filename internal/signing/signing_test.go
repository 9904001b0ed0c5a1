package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMACRoundTrip(t *testing.T) {
	message := []byte("hello <http://x.test|link>")
	secret := []byte("8f742231b10e8888abcd99yyyzzz85a5")

	mac := ComputeMAC(message, secret)
	assert.Len(t, mac, sha256.Size)
	assert.True(t, Verify(Hex(mac), Hex(ComputeMAC(message, secret))))

	reference := hmac.New(sha256.New, secret)
	reference.Write(message)
	assert.Equal(t, reference.Sum(nil), mac)
}

func TestComputeMACRejectsMutations(t *testing.T) {
	message := []byte("payload")
	secret := []byte("secret")
	expected := Hex(ComputeMAC(message, secret))

	for i := range message {
		mutated := append([]byte(nil), message...)
		mutated[i] ^= 0x01
		assert.False(t, Verify(Hex(ComputeMAC(mutated, secret)), expected),
			"flipped message byte %d must not verify", i)
	}
	for i := range secret {
		mutated := append([]byte(nil), secret...)
		mutated[i] ^= 0x01
		assert.False(t, Verify(Hex(ComputeMAC(message, mutated)), expected),
			"flipped secret byte %d must not verify", i)
	}
}

func TestSlackSignatureFormat(t *testing.T) {
	body := []byte(`{"type":"event_callback"}`)
	got := SlackSignature(1531420618, body, "signing-secret")

	require.True(t, strings.HasPrefix(got, "v0="))
	digest := strings.TrimPrefix(got, "v0=")
	assert.Len(t, digest, sha256.Size*2)
	assert.Equal(t, strings.ToLower(digest), digest)

	reference := hmac.New(sha256.New, []byte("signing-secret"))
	reference.Write([]byte("v0:1531420618:" + string(body)))
	assert.Equal(t, "v0="+hex.EncodeToString(reference.Sum(nil)), got)
}

func TestLineSignatureFormat(t *testing.T) {
	body := []byte(`{"events":[]}`)
	secret := []byte{0x01, 0x02, 0x03, 0x04}

	reference := hmac.New(sha256.New, secret)
	reference.Write(body)
	assert.Equal(t, base64.StdEncoding.EncodeToString(reference.Sum(nil)), LineSignature(body, secret))
}

func TestResourceTokenIsStablePerReference(t *testing.T) {
	token := ResourceToken("https://files.slack.example/img.png", "signing-secret")
	assert.Equal(t, token, ResourceToken("https://files.slack.example/img.png", "signing-secret"))
	assert.NotEqual(t, token, ResourceToken("https://files.slack.example/other.png", "signing-secret"))
	assert.NotEqual(t, token, ResourceToken("https://files.slack.example/img.png", "other-secret"))
}

func TestDecodeSecret(t *testing.T) {
	key, err := DecodeSecret("0102030f")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x0f}, key)

	_, err = DecodeSecret("not-hex")
	assert.Error(t, err)
}
