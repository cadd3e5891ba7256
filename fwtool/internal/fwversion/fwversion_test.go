// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fwversion

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/blang/semver/v4"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefines(t *testing.T) {
	defs := ParseDefines(`-DHASP_VER_MAJ=0 -I include -D HASP_VER_MIN=7
	  -D HASP_VER_REV=1 -DHASP_USE_HTTP -Os -D`)
	assert.Equal(t, []Define{
		{"HASP_VER_MAJ", "0"},
		{"HASP_VER_MIN", "7"},
		{"HASP_VER_REV", "1"},
		{"HASP_USE_HTTP", ""},
	}, defs)
}

func TestVersion(t *testing.T) {
	v, err := Version(ParseDefines("-D HASP_VER_MAJ=0 -D HASP_VER_MIN=7 -D HASP_VER_REV=0"))
	require.NoError(t, err)
	assert.Equal(t, semver.Version{Major: 0, Minor: 7}, v)

	v, err = Version(ParseDefines(
		"-D HASP_VERSION_MAJOR=1 -D HASP_VERSION_MINOR=2 -D HASP_VERSION_REVISION=3 -D HASP_VERSION_REVISION=4",
	))
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", v.String())

	_, err = Version(ParseDefines("-D HASP_VER_MAJ=0 -D HASP_VER_MIN=7"))
	assert.EqualError(t, err, "HASP_VER_REV is not defined")

	_, err = Version(ParseDefines("-D HASP_VER_MAJ=x -D HASP_VER_MIN=7 -D HASP_VER_REV=0"))
	assert.ErrorContains(t, err, "bad firmware version")
}

func TestNames(t *testing.T) {
	v := semver.Version{Major: 0, Minor: 7, Patch: 1}
	assert.Equal(t, "lanbon_l8_4MB_v0.7.1", Variant("lanbon_l8_4MB", v))
	assert.Equal(t, "lanbon_l8_ota_v0.7.1.bin", OTAName("lanbon_l8_4MB", v))
	assert.Equal(t, "d1-r32_full_16MB_v0.7.1.bin", FullName("d1-r32_16MB", "16MB", v))
	assert.Equal(t, "esp32dev", StripFlashSuffix("esp32dev_32MB"))
}

func TestBuildFlags(t *testing.T) {
	assert.Equal(t, []string{
		`-D COMMIT_HASH=\"abc1234\"`,
		"-D ESP_FLASH_SIZE=4",
	}, BuildFlags(Stamp{Commit: "abc1234"}, 4<<20))
	assert.Equal(t, []string{
		`-D COMMIT_HASH=\"abc1234\"`,
		`-D AUTO_VERSION=\"v1.0-2-gabc1234\"`,
	}, BuildFlags(Stamp{Commit: "abc1234", Describe: "v1.0-2-gabc1234"}, 0))
}

type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	n    int
}

func newTestRepo(t *testing.T) *testRepo {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return &testRepo{t: t, dir: dir, repo: repo}
}

// commit records a new commit on top of parents, HEAD if none are given.
func (r *testRepo) commit(parents ...plumbing.Hash) plumbing.Hash {
	r.n++
	wt, err := r.repo.Worktree()
	require.NoError(r.t, err)
	name := "f" + strconv.Itoa(r.n)
	require.NoError(r.t, os.WriteFile(filepath.Join(r.dir, name), []byte(name), 0o644))
	_, err = wt.Add(name)
	require.NoError(r.t, err)
	h, err := wt.Commit(name, &git.CommitOptions{Author: r.sig(), Parents: parents})
	require.NoError(r.t, err)
	return h
}

func (r *testRepo) sig() *object.Signature {
	return &object.Signature{
		Name:  "dev",
		Email: "dev@example.com",
		When:  time.Date(2025, 1, 1, 0, r.n, 0, 0, time.UTC),
	}
}

func TestReadStamp(t *testing.T) {
	r := newTestRepo(t)
	first := r.commit()

	st, err := ReadStamp(r.dir, true)
	require.NoError(t, err)
	assert.Equal(t, first.String()[:7], st.Commit)
	assert.Equal(t, st.Commit, st.Describe, "no tags")

	_, err = r.repo.CreateTag("v0.6.0", first, nil)
	require.NoError(t, err)
	st, err = ReadStamp(r.dir, true)
	require.NoError(t, err)
	assert.Equal(t, "v0.6.0", st.Describe)

	r.commit()
	tagged := r.commit()
	_, err = r.repo.CreateTag("v0.7.0", tagged, &git.CreateTagOptions{
		Tagger:  r.sig(),
		Message: "release",
	})
	require.NoError(t, err)
	r.commit()
	head := r.commit()

	sub := filepath.Join(r.dir, "data")
	require.NoError(t, os.Mkdir(sub, 0o755))
	st, err = ReadStamp(sub, true)
	require.NoError(t, err)
	short := head.String()[:7]
	assert.Equal(t, Stamp{Commit: short, Describe: "v0.7.0-2-g" + short}, st)

	st, err = ReadStamp(r.dir, false)
	require.NoError(t, err)
	assert.Empty(t, st.Describe)
}

func TestReadStampMerge(t *testing.T) {
	r := newTestRepo(t)
	base := r.commit()
	side := r.commit(r.commit(base))
	release := r.commit(base)
	_, err := r.repo.CreateTag("v1.0.0", release, nil)
	require.NoError(t, err)
	head := r.commit(release, side)

	st, err := ReadStamp(r.dir, true)
	require.NoError(t, err)
	short := head.String()[:7]
	assert.Equal(t, "v1.0.0-3-g"+short, st.Describe, "both side commits count")
}

func TestReadStampNoRepo(t *testing.T) {
	_, err := ReadStamp(t.TempDir(), false)
	assert.ErrorContains(t, err, "could not open repository")
}
