// Package artwork finds, downloads, and stores OPL art assets for games.
//
// Search goes through the RAWG.io games API and is fronted by a TTL cache
// and a per-client rate limiter so a browser hammering the preview grid
// cannot burn the API quota. Saved images are resized and recompressed to
// the per-type budgets OPL renders comfortably, then written into the
// target's ART folder as <game_id>_<TYPE><ext>.
package artwork
