// Package analytics keeps the business gauges current.
//
// A Refresher counts accounts, contacts, request history records and live
// sessions on a robfig/cron schedule and copies the numbers into the
// contactbook_*_total and contactbook_sessions_active gauges, together with
// the database pool statistics.
//
//	refresher := analytics.NewRefresher(analytics.Sources{
//		Accounts: auth.NewDBAccountStore(db),
//		Contacts: contacts.NewDBStore(db),
//		History:  audit.NewDBStore(db),
//		Sessions: sessions,
//		DB:       db,
//	}, metrics, logger)
//	go refresher.Run(ctx, "@every 1m")
package analytics
