// Package source acquires the frames fed to the detection pipelines.
//
// A Provider turns a Key into a decoded image. Three providers are
// available:
//
//   - SDSSProvider: JPEG cut-outs from the SDSS SkyServer, addressed by
//     right ascension and declination
//   - APODProvider: the NASA Astronomy Picture of the Day, addressed by date
//   - FileProvider: frames already on disk, addressed by path
//
// Network providers optionally keep the raw download under a data directory
// so that a run can be repeated offline with FileProvider.
//
// FetchPair retrieves the two frames of a motion comparison concurrently and
// fails as soon as either fetch fails.
package source
