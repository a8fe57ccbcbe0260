package store

import (
	"github.com/pkg/errors"

	"mercator-hq/chronicle/pkg/history"
)

func errUnknownKind(kind history.Kind) error {
	return errors.Errorf("unknown record kind %q", kind)
}

func errDuplicate(what, id string) error {
	return errors.Errorf("%s %s already exists", what, id)
}
