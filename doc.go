// Package stashcat is a client for the stashcat messenger that decrypts
// end-to-end encrypted messages and files.
//
// Every chat has a random AES-256 key, stored on the server wrapped with
// each member's RSA public key. The user's private key is itself stored
// encrypted under a passphrase. Unlock opens the private key; after that
// chat keys are unwrapped on first use and cached.
//
// Basic usage:
//
//	client, err := stashcat.New(stashcat.WithBaseURL("https://api.stashcat.com"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := client.Login(ctx, "user@example.com", "password"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Unlock(ctx, "encryption passphrase"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Refresh(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	msgs, err := client.DecryptedMessages(ctx, stashcat.ConversationID("42"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range msgs {
//	    switch {
//	    case m.Err != nil:
//	        log.Printf("message %s: %v", m.ID, m.Err)
//	    case m.Plaintext != nil:
//	        fmt.Println(m.Sender.Name(), *m.Plaintext)
//	    }
//	}
//
// KeyStore, Decryptor and Verify can also be used without a Client when
// chat metadata and messages come from elsewhere.
//
// # Errors
//
// Failures are reported as *CryptoError, *ProtocolError, *ValueError,
// *EncodingError, *APIError or *NetworkError, all of which implement
// StashcatError. Use errors.Is with ErrCrypto, ErrProtocol, ErrValue,
// ErrEncoding or ErrWrongPassphrase to classify them.
package stashcat
