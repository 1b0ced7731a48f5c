// Package credential hashes and verifies account passwords with argon2id in PHC
// string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// It backs the test backend's user table; clients never hash passwords.
package credential
