package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// init sets up the zerolog parameters shared by every Logger.
func init() {
	// Stack traces of pkg/errors errors are attached to error logs; file timestamps are UNIX seconds
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
