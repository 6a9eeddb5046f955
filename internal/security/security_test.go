package security

import (
	"bytes"
	"testing"
)

func TestNewContentEncryption(t *testing.T) {
	enc := NewContentEncryption()
	if enc == nil {
		t.Fatal("Expected ContentEncryption, got nil")
	}
	if enc.iterations != 100000 {
		t.Errorf("Expected iterations 100000, got %d", enc.iterations)
	}
	if enc.keyLength != 32 {
		t.Errorf("Expected keyLength 32, got %d", enc.keyLength)
	}
}

func TestDeriveKey(t *testing.T) {
	enc := NewContentEncryption()
	salt := []byte("test-salt-1234567890123456") // 26 bytes

	key := enc.DeriveKey("test-secret", salt)
	if len(key) != 32 {
		t.Errorf("Expected key length 32, got %d", len(key))
	}

	// Test that same inputs produce same key
	key2 := enc.DeriveKey("test-secret", salt)
	if !bytes.Equal(key, key2) {
		t.Error("Expected same key for same inputs")
	}

	// Test that different inputs produce different keys
	key3 := enc.DeriveKey("different-secret", salt)
	if bytes.Equal(key, key3) {
		t.Error("Expected different key for different secret")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	enc := NewContentEncryption()
	key := []byte("12345678901234567890123456789012") // 32 bytes
	plaintext := []byte("This is a test message for encryption")

	// Encrypt
	ciphertext, err := enc.Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	if len(ciphertext) == 0 {
		t.Error("Expected non-empty ciphertext")
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("Expected ciphertext to be different from plaintext")
	}

	// Decrypt
	decrypted, err := enc.Decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("Failed to decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Expected decrypted text to match original, got %s", string(decrypted))
	}
}

func TestDecryptInvalidCiphertext(t *testing.T) {
	enc := NewContentEncryption()
	key := []byte("12345678901234567890123456789012")

	// Test with too short ciphertext
	_, err := enc.Decrypt([]byte("short"), key)
	if err == nil {
		t.Error("Expected error for too short ciphertext")
	}

	// Test with invalid ciphertext
	_, err = enc.Decrypt([]byte("invalid-ciphertext-that-is-long-enough"), key)
	if err == nil {
		t.Error("Expected error for invalid ciphertext")
	}
}

func TestGenerateSalt(t *testing.T) {
	enc := NewContentEncryption()

	salt1, err := enc.GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}
	if len(salt1) != 16 {
		t.Errorf("Expected salt length 16, got %d", len(salt1))
	}

	// Test that salts are random
	salt2, err := enc.GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate second salt: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("Expected different salts on multiple calls")
	}
}

func TestEncryptInvalidKey(t *testing.T) {
	enc := NewContentEncryption()

	// Test with invalid key length
	invalidKey := []byte("short-key")
	data := []byte("test data")

	_, err := enc.Encrypt(data, invalidKey)
	if err == nil {
		t.Error("Expected error for invalid key length")
	}
}

func TestDecryptInvalidKey(t *testing.T) {
	enc := NewContentEncryption()

	// Test with invalid key length
	invalidKey := []byte("short-key")
	ciphertext := []byte("some-ciphertext")

	_, err := enc.Decrypt(ciphertext, invalidKey)
	if err == nil {
		t.Error("Expected error for invalid key length")
	}
}
