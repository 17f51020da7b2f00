package vrf

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid VRF magic")
	ErrUnsupportedMajor = errors.New("unsupported VRF major version")
	ErrCorruptFile      = errors.New("corrupt VRF file")
	ErrBadShape         = errors.New("logits shape mismatch")
	ErrTokenRange       = errors.New("token id out of int32 range")
)
