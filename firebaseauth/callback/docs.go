/*
callback provides http.HandlerFunc glue for embedding a firebaseauth
Strategy into a web application: it parses the inbound request, runs the
strategy's state machine, and dispatches the outcome to response functions
supplied by the application (the session host).
*/
package callback
