// Package log provides the structured logging abstraction used by snapship.
//
// Components depend only on the Logger interface. The zerolog adapter is used
// by the command line tool; the no-op logger keeps tests quiet.
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr), os.Stderr)
//	logger.Info("photo captured", log.Int("bytes", n))
//
// Logging is fire-and-forget: no method returns an error and no caller
// branches on the outcome of a log call.
package log
