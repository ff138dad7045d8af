// Package storage answers entity storage calls (query, load, load multiple,
// save, delete) from one remote API client.
//
// The adapter is built from a Config, usually loaded with viper:
//
//	v := viper.New()
//	v.SetConfigFile("remote-entities.yaml")
//	if err := v.ReadInConfig(); err != nil {
//		return err
//	}
//	cfg, err := storage.LoadConfig(v)
//	if err != nil {
//		return err
//	}
//	adapter, err := storage.New(cfg, apiclient.Deps{...})
//
// A configuration file looks like:
//
//	client: primary_site
//	endpoint: https://www.example.com/api
//	api:
//	  username: api-user
//	  password: api-secret
//	pager:
//	  default_limit: 100
//	cache:
//	  max_age: permanent
//	field_mapping:
//	  id: id
//	  title: site
package storage
