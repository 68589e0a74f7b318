// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package lakekit

import (
	"strings"

	"github.com/pkg/errors"
)

// ParseURL splits a data location into scheme, bucket, and path. Locations
// look like "s3://bucket/prefix" or a plain local path; "s3a://" is accepted
// as an alias for "s3://" since that is how Hadoop-flavored tooling spells
// it. A local path comes back with scheme "file", an empty bucket, and the
// path unchanged.
func ParseURL(loc string) (scheme, bucket, path string, err error) {
	for _, s := range []string{"s3://", "s3a://"} {
		if !strings.HasPrefix(loc, s) {
			continue
		}
		rest := strings.TrimPrefix(loc, s)
		if rest == "" {
			return "", "", "", errors.Errorf("no bucket in location '%s'", loc)
		}
		parts := strings.SplitN(rest, "/", 2)
		bucket = parts[0]
		if len(parts) == 2 {
			path = parts[1]
		}
		return "s3", bucket, path, nil
	}
	if strings.Contains(loc, "://") {
		return "", "", "", errors.Errorf("unsupported scheme in location '%s'", loc)
	}
	return "file", "", loc, nil
}
