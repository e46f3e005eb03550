package configs

// AppVersion 应用版本，发布时通过 -ldflags "-X" 覆盖.
var AppVersion = "0.1.0"
