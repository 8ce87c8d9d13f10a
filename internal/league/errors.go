package league

import "errors"

// Sentinel kinds for league definition errors.
var (
	ErrLoadLeague    = errors.New("load league failed")
	ErrInvalidLeague = errors.New("invalid league")
	ErrUnknownRound  = errors.New("unknown round")
)
