package model

// Version of ltpgen.
const Version = "0.3.0"
