package cerr

import (
	"errors"

	"github.com/apex/log"
)

// Log writes an error to the structured logger, carrying along the
// contextual fields if the error (or one of its causes) is contextual.
func Log(err error) {
	var ctxErr ContextualError
	if !errors.As(err, &ctxErr) {
		log.Error(err.Error())
		return
	}

	log.WithFields(log.Fields(ctxErr.Context.ContextFields)).Error(err.Error())
}
