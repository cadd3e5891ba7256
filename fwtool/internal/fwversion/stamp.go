// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fwversion

import (
	"fmt"
	"strconv"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ShortHashLen is the length of the abbreviated commit hashes.
const ShortHashLen = 7

// Stamp identifies the source revision of a build.
type Stamp struct {
	Commit   string // abbreviated hash of HEAD
	Describe string // "tag", "tag-N-gHASH" or the abbreviated hash
}

// ReadStamp opens the git repository containing dir. The describe string is
// computed only if describe is set, it requires walking the history.
func ReadStamp(dir string, describe bool) (Stamp, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return Stamp{}, errors.Wrapf(err, "could not open repository %s", dir)
	}
	head, err := repo.Head()
	if err != nil {
		return Stamp{}, errors.Wrap(err, "HEAD")
	}
	st := Stamp{Commit: head.Hash().String()[:ShortHashLen]}
	logrus.Infof("Commit Hash: %s", st.Commit)
	if !describe {
		return st, nil
	}
	if st.Describe, err = describeHead(repo, head.Hash()); err != nil {
		return Stamp{}, err
	}
	logrus.Infof("Firmware Revision: %s", st.Describe)
	return st, nil
}

// tagged maps commits to the names of the tags pointing at them. Annotated
// tags are peeled to their target commit.
func tagged(repo *git.Repository) (map[plumbing.Hash]string, error) {
	tags, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "tags")
	}
	m := make(map[plumbing.Hash]string)
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		h := ref.Hash()
		if tag, err := repo.TagObject(h); err == nil {
			c, err := tag.Commit()
			if err != nil {
				logrus.Debugf("skipping tag %s: %v", ref.Name().Short(), err)
				return nil
			}
			h = c.Hash
		}
		name := ref.Name().Short()
		if prev, ok := m[h]; !ok || name > prev {
			m[h] = name
		}
		return nil
	})
	return m, errors.Wrap(err, "tags")
}

// describeHead names head after the tag with the fewest commits reachable
// from head but not from the tag, like git describe --tags. Of equally near
// tags the one met first in committer time order wins.
func describeHead(repo *git.Repository, head plumbing.Hash) (string, error) {
	tags, err := tagged(repo)
	if err != nil {
		return "", err
	}
	short := head.String()[:ShortHashLen]
	var cands []plumbing.Hash
	total, err := walk(repo, head, git.LogOrderCommitterTime, func(c *object.Commit) {
		if _, ok := tags[c.Hash]; ok {
			cands = append(cands, c.Hash)
		}
	})
	if err != nil {
		return "", err
	}
	tag, best := "", -1
	for _, h := range cands {
		n, err := walk(repo, h, git.LogOrderDefault, nil)
		if err != nil {
			return "", err
		}
		if d := total - n; best < 0 || d < best {
			tag, best = tags[h], d
		}
	}
	switch {
	case best < 0:
		return short, nil
	case best == 0:
		return tag, nil
	}
	return tag + "-" + strconv.Itoa(best) + "-g" + short, nil
}

// walk visits every commit reachable from h once and returns their number.
func walk(repo *git.Repository, h plumbing.Hash, order git.LogOrder, fn func(*object.Commit)) (int, error) {
	commits, err := repo.Log(&git.LogOptions{From: h, Order: order})
	if err != nil {
		return 0, errors.Wrap(err, "log")
	}
	n := 0
	err = commits.ForEach(func(c *object.Commit) error {
		if fn != nil {
			fn(c)
		}
		n++
		return nil
	})
	return n, errors.Wrap(err, "log")
}

// BuildFlags returns the compiler flags that pass the stamp and the flash
// size in MiB to the firmware. The flash size is omitted if zero, the
// revision if the stamp was read without describe.
func BuildFlags(st Stamp, flashBytes uint64) []string {
	flags := []string{fmt.Sprintf(`-D COMMIT_HASH=\"%s\"`, st.Commit)}
	if flashBytes != 0 {
		flags = append(flags, fmt.Sprintf("-D ESP_FLASH_SIZE=%d", flashBytes>>20))
	}
	if st.Describe != "" {
		flags = append(flags, fmt.Sprintf(`-D AUTO_VERSION=\"%s\"`, st.Describe))
	}
	return flags
}
