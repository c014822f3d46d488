package npc

import "errors"

var (
	ErrUnknownFactory = errors.New("unknown factory")
	ErrUnknownNode    = errors.New("unknown node")
	ErrInvalidParams  = errors.New("invalid node params")
	ErrNilChild       = errors.New("child is nil")
	ErrNilConfig      = errors.New("config is nil")
)
