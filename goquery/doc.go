// Package goquery implements selector-driven field extraction on wiki pages.
// CSS selectors are evaluated with goquery, XPath expressions with htmlquery
// and regular expressions against the page text.
package goquery
