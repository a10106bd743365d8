// Package auth implements passwordless accounts.
//
// A visitor submits an email address and a username. The account is found
// or created, a one-time verifier is stored on it and a magic link
// (/auth/<verifier>) is mailed out. Following the link consumes the
// verifier, upgrades an unverified account to verified and issues a signed
// session token that the server keeps in the Auth cookie:
//
//	svc := auth.NewService(auth.NewStore(database), tokens, mailer, auth.Config{
//	    AppName: "saul.app",
//	    BaseURL: "https://saul.app",
//	})
//	user, err := svc.Authenticate(ctx, email, username)
//	...
//	user, token, err := svc.Verify(ctx, verifier)
//
// Tokens are only current while they carry the timestamp of the user's most
// recent authentication, so issuing a new one retires the old.
//
// Mail delivery is rate limited per address (three messages per five
// minutes).
//
// Middleware resolves the cookie on every request; handlers read the
// account with UserFromContext and guard routes with RequireUser and
// RequireRole.
package auth
