package env

import (
	"github.com/hwctl/laptop-powerd/internal/config"
)

var Cfg *config.Config
