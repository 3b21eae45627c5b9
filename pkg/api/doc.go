// Package api provides the HTTP server for the contact book.
//
// # Overview
//
// The server is built on gorilla/mux. Every matched route runs through the same
// chain: request id, request logging, panic recovery, Prometheus metrics, a
// request body cap, optional identity resolution, the request history
// recorder and a JSON content type check. 404 and 405 answers run through the
// same chain without the content type check, so they are logged, counted and
// recorded too. Routes under /api other than register and login require a
// principal.
//
// # Routes
//
//	POST   /api/auth/register     public, rate limited
//	POST   /api/auth/login        public, rate limited
//	PATCH  /api/auth/password
//	POST   /api/auth/logout
//	GET    /api/requesthistory
//	DELETE /api/requesthistory
//	POST   /api/contacts
//	GET    /api/contacts
//	POST   /api/contacts/search
//	GET    /api/contacts/{id}
//	PATCH  /api/contacts/{id}
//	DELETE /api/contacts/{id}
//
// # Usage
//
//	server := api.NewServer(api.Options{
//		Auth:     authService,
//		Sessions: sessions,
//		History:  audit.NewDBStore(db),
//		Contacts: contacts.NewDBStore(db),
//		Metrics:  metrics,
//		Logger:   logger,
//	})
//	http.ListenAndServe(":8080", server)
//
// Register and login answer {"token": "..."} and set the contactbook_session
// cookie. Clients send the token as "Authorization: Bearer <token>"; when the
// header is absent the cookie is used instead.
package api
