// Package contacts implements the per-account address book.
//
// Every query carries the caller's account id, so a contact owned by someone
// else is indistinguishable from one that does not exist (404). Email and
// address default to "None" when omitted on create; PATCH changes only the
// fields present in the body. Search matches a substring of the name, phone
// number or email; LIKE wildcards in the query are matched literally.
package contacts
