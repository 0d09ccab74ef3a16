// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
)

const (
	DefaultAnswererHost = "localhost"
	DefaultAnswererPort = 12310
)

func getAnswererBaseURL() string {
	// Environment variable takes priority so tests and container
	// deployments can override the default.
	if url := os.Getenv("COVEGATE_SERVICE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("http://%s:%d", DefaultAnswererHost, DefaultAnswererPort)
}
