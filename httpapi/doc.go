// Package httpapi exposes the shiftAuth engine over HTTP: login and logout,
// session inspection, API key management, registration and role updates.
//
// Routing uses chi. Authentication is delegated to the middleware package;
// handlers only translate JSON bodies into Engine calls and Engine errors
// into statuses through middleware.WriteError.
//
//	srv, err := httpapi.New(httpapi.Deps{Engine: engine, Logger: logger})
//	http.ListenAndServe(addr, srv.Handler())
package httpapi
