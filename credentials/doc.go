// Package credentials turns passwords into the value kept in the user
// store and checks login attempts against it.
//
// Four schemes exist and they get stronger in order:
//
//   - plain keeps the password as typed, only useful to show why nobody
//     should do this.
//   - encrypted seals the password with NaCl secretbox under a root key
//     read from the environment. Anyone holding the key gets every
//     password back.
//   - argon2 stretches the password with argon2id and a random salt, the
//     password itself is never kept.
//   - bcrypt does the same with bcrypt.
//
// The root key is never passed as an argument, only the name of the
// environment variable holding it. The variable is cleared as soon as it
// is read.
package credentials
