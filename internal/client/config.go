package client

import (
	"encoding/json"
	"os"

	"github.com/chzyer/readline"
	sargon2 "github.com/mdouchement/simple-argon2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltKeyLength = 16
	// CredentialsFile is the default sealed credentials file.
	CredentialsFile = ".starving"
	// PassphraseEnv overrides the passphrase prompt.
	PassphraseEnv = "STARVING_PASSPHRASE"
)

// Credentials holds what is needed to reach the document server.
type Credentials struct {
	Endpoint    string `json:"endpoint"`
	UserID      string `json:"user_id"`
	BearerToken string `json:"bearer_token"`
}

// Passphrase returns the passphrase protecting the credentials file.
func Passphrase() ([]byte, error) {
	if v := os.Getenv(PassphraseEnv); v != "" {
		return []byte(v), nil
	}

	passphrase, err := readline.Password("passphrase: ")
	return passphrase, errors.Wrap(err, "could not read passphrase from stdin")
}

// Remove removes the credentials file.
func Remove(filename string) error {
	return os.Remove(filename)
}

// Load reads and unseals the credentials file.
func Load(filename string) (Credentials, error) {
	var creds Credentials

	ciphertext, err := os.ReadFile(filename)
	if err != nil {
		return creds, errors.Wrap(err, "could not read credentials file")
	}
	if len(ciphertext) < saltKeyLength+chacha20poly1305.NonceSizeX {
		return creds, errors.New("credentials file is corrupted")
	}

	passphrase, err := Passphrase()
	if err != nil {
		return creds, err
	}

	//
	// Key derivation of passphrase

	salt := ciphertext[:saltKeyLength]
	ciphertext = ciphertext[saltKeyLength:]
	hash := argon2.IDKey(passphrase, salt, 3, 64<<10, 2, 32)

	//
	// Unseal credentials

	aead, err := chacha20poly1305.NewX(hash)
	if err != nil {
		return creds, errors.Wrap(err, "could not create AEAD")
	}

	nonce := ciphertext[:aead.NonceSize()]
	ciphertext = ciphertext[aead.NonceSize():]

	payload, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return creds, errors.Wrap(err, "could not decrypt credentials file")
	}

	err = json.Unmarshal(payload, &creds)
	return creds, errors.Wrap(err, "could not parse credentials")
}

// Save seals the credentials into filename.
func Save(filename string, creds Credentials) error {
	payload, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "could not serialize credentials")
	}

	passphrase, err := Passphrase()
	if err != nil {
		return err
	}

	//
	// Key derivation of passphrase

	salt, err := sargon2.GenerateRandomBytes(saltKeyLength)
	if err != nil {
		return errors.Wrap(err, "could not generate salt for credentials")
	}
	hash := argon2.IDKey(passphrase, salt, 3, 64<<10, 2, 32)

	//
	// Seal credentials

	aead, err := chacha20poly1305.NewX(hash)
	if err != nil {
		return errors.Wrap(err, "could not create AEAD")
	}
	nonce, err := sargon2.GenerateRandomBytes(uint32(aead.NonceSize()))
	if err != nil {
		return errors.Wrap(err, "could not generate nonce for credentials")
	}

	ciphertext := aead.Seal(nil, nonce, payload, nil)
	ciphertext = append(nonce, ciphertext...)
	ciphertext = append(salt, ciphertext...)

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", filename)
	}
	defer f.Close()

	if _, err = f.Write(ciphertext); err != nil {
		return errors.Wrap(err, "could not store credentials")
	}
	return errors.Wrap(f.Sync(), "could not store credentials")
}
