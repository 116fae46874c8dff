// Package commands defines the trustctl CLI, an operator tool over the
// trustcore package.
//
// # Commands
//
//   - init       Create or load the CA root
//   - anchor     Print the CA root certificate
//   - enroll     Generate a key pair and certificate for a user
//   - verify     Verify a certificate against the CA
//   - revoke     Revoke a certificate by serial
//   - crl        Print the signed revocation list
//   - seal       Encrypt a file for one or more recipients
//   - open       Decrypt a sealed file
//   - sign       Sign a file
//   - verify-sig Check a detached signature
//   - challenge  Run a challenge-response login round trip
//
// # Configuration
//
// Settings come from --config (default ./trustctl.yaml when present), then
// the --env-file, then TRUSTCORE_* variables. See internal/config.
package commands
