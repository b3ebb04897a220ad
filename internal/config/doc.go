// Package config provides the run configuration of coursecrawl and the
// YAML sources file that describes which catalogs to crawl.
package config
