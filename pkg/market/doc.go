// Package market fetches and caches crypto market data for the content
// pipeline: CoinGecko trending/markets/global/chart endpoints, the
// alternative.me Fear & Greed index, ranking pickers for the daily post,
// and the daily snapshot store the weekly note aggregates.
package market
