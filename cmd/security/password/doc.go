// Package password derives and verifies salted password digests.
//
// The salt is generated per user and stored next to the digest. The digest
// carries its algorithm and cost so that stored credentials keep verifying
// after the configured algorithm changes:
//
//	$pbkdf2-sha256$i=100000$<key_b64>
//	$argon2id$v=19$m=65536,t=3,p=2$<key_b64>
//
// PBKDF2-SHA256 with 100k iterations and a 32-byte key is the default.
// Digests are treated as untrusted input during Verify, and costs far above
// the configured ones are refused.
package password
