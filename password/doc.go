// Package password implements the credential verifier: one-way Argon2id
// hashing for account passwords and API-key secrets.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash on the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials; callers supply plaintext and receive hashes.
//   - Import any other shiftAuth package.
//   - Log plaintext secrets or hash parameters at runtime.
package password
