// Package mmsdm talks to the NEMWeb MMSDM historical data archive
//
// The archive is a tree of IIS directory listings:
//
//	{base}{year}/MMSDM_{year}_{MM}/MMSDM_Historical_Data_SQLLoader/{DATA|PREDISP_ALL_DATA}/{stub}.zip
//
// Listings are scraped for table names, available months and file sizes. NEMWeb
// answers bursts with 403s so listing requests cycle user agents and retry until
// they get a 200
package mmsdm
