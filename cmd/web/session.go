package main

type sessionKey string

const playerIDSessionKey = sessionKey("playerID")
